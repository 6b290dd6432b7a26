package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func lock(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	var body struct {
		Pin string `json:"pin"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	result, err := ctx.db.PerformLock(ctx.actor, ctx.sessionID, id, body.Pin)
	if err != nil {
		return err
	}
	return writeResult(w, result)
}

func unlock(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	var body struct {
		Pin string `json:"pin"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	result, err := ctx.db.PerformUnlock(ctx.actor, ctx.sessionID, id, body.Pin)
	if err != nil {
		return err
	}
	return writeResult(w, result)
}

func resetPin(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	var body struct {
		NewPin string `json:"newPin"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	// the report is the caller's audit record, the engine does not log it
	report, err := ctx.db.PerformResetPin(ctx.actor, id, body.NewPin)
	if err != nil {
		return err
	}
	return writeResult(w, report)
}

func taskAssigned(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	if err := ctx.db.OnTaskAssigned(id); err != nil {
		return err
	}
	return writeResult(w, map[string]interface{}{"itemId": id, "taskLocked": true})
}

func taskResolved(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	if err := ctx.db.OnTaskResolved(id); err != nil {
		return err
	}
	return writeResult(w, map[string]interface{}{"itemId": id, "taskLocked": false})
}
