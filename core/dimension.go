package core

// A Dimension is an organizational group. Every item has exactly one home
// dimension; actors belong to one dimension each.
type DBDimension interface {
	ID() int
	Name() string
}

type DimensionDB interface {
	GetAllDimensions(limit, offset int) ([]DBDimension, error)
	GetDimension(id int) (DBDimension, error)
	GetDimensionByName(name string) (DBDimension, error)
	InsertDimension(name string) error
	IsNotFound(err error) bool
}
