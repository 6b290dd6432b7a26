package backend

import (
	"net/http"

	"github.com/hklemm/dimdocs/core"
	"github.com/julienschmidt/httprouter"
)

type itemView struct {
	ID         int              `json:"id"`
	ParentID   int              `json:"parentId"`
	Kind       core.ItemKind    `json:"kind"`
	Name       string           `json:"name"`
	Dimension  int              `json:"dimension"`
	Status     core.Status      `json:"status"`
	PinLocked  bool             `json:"pinLocked"`
	TaskLocked bool             `json:"taskLocked"`
	Inert      bool             `json:"inert"` // for the calling session
	Counts     *core.ItemCounts `json:"counts"`
	CreatedBy  string           `json:"createdBy"`
	TsCreated  int64            `json:"tsCreated"`
	TsUpdated  int64            `json:"tsUpdated"`
}

func getItem(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	item, err := ctx.db.OpenItem(id)
	if err != nil {
		return err
	}

	ok, err := ctx.db.CanView(ctx.actor, item)
	if err != nil {
		return err
	}
	if !ok {
		return core.Errorf(core.KindPermissionDenied, "dimension %d may not view item %d", ctx.actor.DimensionID, id)
	}

	inert, err := ctx.db.IsInertByLock(item, ctx.sessionID)
	if err != nil {
		return err
	}
	taskLocked, err := ctx.db.TaskLockDB.TaskLocked(id)
	if err != nil {
		return err
	}
	counts, err := ctx.db.Counts(item)
	if err != nil {
		return err
	}

	return writeResult(w, &itemView{
		ID:         item.ID(),
		ParentID:   item.ParentID(),
		Kind:       item.Kind(),
		Name:       item.Name(),
		Dimension:  item.HomeDimensionID(),
		Status:     item.Status(),
		PinLocked:  item.IsLocked(),
		TaskLocked: taskLocked,
		Inert:      inert || taskLocked,
		Counts:     counts,
		CreatedBy:  item.CreatedBy(),
		TsCreated:  item.TsCreated(),
		TsUpdated:  item.TsUpdated(),
	})
}

func createItem(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		ParentID int    `json:"parentId"`
		Kind     string `json:"kind"`
		Name     string `json:"name"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	result, err := ctx.db.PerformCreate(ctx.actor, ctx.sessionID, body.ParentID, core.ItemKind(body.Kind), body.Name)
	if err != nil {
		return err
	}
	return writeResult(w, result)
}

func renameItem(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	result, err := ctx.db.PerformRename(ctx.actor, ctx.sessionID, id, body.Name)
	if err != nil {
		return err
	}
	return writeResult(w, result)
}

func deleteItem(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	result, err := ctx.db.PerformDelete(ctx.actor, ctx.sessionID, id)
	if err != nil {
		return err
	}
	return writeResult(w, result)
}

func statusChange(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	var body struct {
		Target string `json:"target"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	result, err := ctx.db.PerformStatusChange(ctx.actor, ctx.sessionID, id, core.Status(body.Target))
	if err != nil {
		return err
	}
	return writeResult(w, result)
}
