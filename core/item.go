package core

// maximum depth of the item tree, guards the ancestor walk against cycles
const maxDepth = 100

type ItemKind string

const (
	Folder ItemKind = "folder"
	File   ItemKind = "file"
)

func (k ItemKind) Valid() bool {
	return k == Folder || k == File
}

type DBItem interface {
	ID() int
	ParentID() int // 0 if the item is a dimension root
	Kind() ItemKind
	Name() string
	HomeDimensionID() int
	Status() Status
	IsLocked() bool
	CreatedBy() string
	TsCreated() int64
	TsUpdated() int64
}

type ItemDB interface {
	ChildIDs(id int) ([]int, error)
	CountChildren(id int) (int, error)
	CountByStatus(ids []int) (map[Status]int, error)
	DeleteItems(ids []int) error
	GetChildren(id int) ([]DBItem, error)
	GetItem(id int) (DBItem, error)
	InsertItem(parentID int, kind ItemKind, name string, dimensionID int, createdBy string) (int, error)
	IsNotFound(err error) bool
	SetName(i DBItem, name string) error
	SetStatus(ids []int, status Status) error // all rows in one transaction
	SetLocked(i DBItem, locked bool, pinHash string) error
}

// An Item is a DBItem with its ancestor chain attached. The chain is needed
// to find the tree root that mutating operations are serialized on.
type Item struct {
	DBItem
	Parent *Item // nil if the item is a dimension root
}

// Root returns the topmost ancestor, which may be the item itself.
func (i *Item) Root() *Item {
	var n = i
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// OpenItem loads the item with the given id and its ancestor chain.
func (c *CoreDB) OpenItem(id int) (*Item, error) {

	var item *Item
	var last *Item

	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return nil, Errorf(KindConflict, "item %d: tree too deep", id)
		}

		dbItem, err := c.ItemDB.GetItem(id)
		if err != nil {
			if c.ItemDB.IsNotFound(err) {
				return nil, Errorf(KindNotFound, "item %d not found", id)
			}
			return nil, err
		}

		var n = &Item{
			DBItem: dbItem,
		}
		if item == nil {
			item = n
		} else {
			last.Parent = n
		}
		last = n

		if dbItem.ParentID() == 0 {
			return item, nil
		}
		id = dbItem.ParentID()
	}
}

// DescendantIDs collects the ids of every item below rootID, breadth-first
// with an explicit worklist. The root itself is not included.
func (c *CoreDB) DescendantIDs(rootID int) ([]int, error) {

	var ids = []int{}
	var queue = []int{rootID}

	for len(queue) > 0 {
		var id = queue[0]
		queue = queue[1:]

		children, err := c.ItemDB.ChildIDs(id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		queue = append(queue, children...)

		if len(ids) > 1<<20 {
			return nil, Errorf(KindConflict, "item %d: subtree too large", rootID)
		}
	}

	return ids, nil
}

// ItemCounts are the nested counts of a folder.
type ItemCounts struct {
	Children    int            `json:"children"`
	Descendants int            `json:"descendants"`
	ByStatus    map[Status]int `json:"byStatus"`
}

// Counts computes the nested counts of the item's subtree.
func (c *CoreDB) Counts(item *Item) (*ItemCounts, error) {

	children, err := c.ItemDB.CountChildren(item.ID())
	if err != nil {
		return nil, err
	}

	ids, err := c.DescendantIDs(item.ID())
	if err != nil {
		return nil, err
	}

	byStatus, err := c.ItemDB.CountByStatus(ids)
	if err != nil {
		return nil, err
	}

	return &ItemCounts{
		Children:    children,
		Descendants: len(ids),
		ByStatus:    byStatus,
	}, nil
}
