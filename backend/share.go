package backend

import (
	"net/http"
	"strconv"

	"github.com/hklemm/dimdocs/core"
	"github.com/julienschmidt/httprouter"
)

func effectiveAccess(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	dimension, err := strconv.Atoi(req.URL.Query().Get("dimension"))
	if err != nil {
		return core.Errorf(core.KindValidation, "bad dimension %q", req.URL.Query().Get("dimension"))
	}

	item, err := ctx.db.OpenItem(id)
	if err != nil {
		return err
	}

	level, err := ctx.db.EffectiveAccess(item, dimension)
	if err != nil {
		return err
	}

	return writeResult(w, map[string]interface{}{
		"itemId":    id,
		"dimension": dimension,
		"access":    level,
	})
}

func listGrants(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	item, err := ctx.db.OpenItem(id)
	if err != nil {
		return err
	}

	if ctx.actor.DimensionID != item.HomeDimensionID() {
		return core.Errorf(core.KindPermissionDenied, "grants are visible to the owning dimension only")
	}

	grants, err := ctx.db.ListGrants(item)
	if err != nil {
		return err
	}
	return writeResult(w, grants)
}

func shareSave(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := itemID(params)
	if err != nil {
		return err
	}

	var body struct {
		Grants []struct {
			ToDimension int    `json:"toDimension"`
			AccessLevel string `json:"accessLevel"`
		} `json:"grants"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}

	var desired = make([]core.ShareGrant, len(body.Grants))
	for i, g := range body.Grants {
		desired[i] = core.ShareGrant{
			ToDimension: g.ToDimension,
			AccessLevel: core.AccessLevel(g.AccessLevel),
		}
	}

	result, err := ctx.db.PerformShareSave(ctx.actor, ctx.sessionID, id, desired)
	if err != nil {
		return err
	}
	return writeResult(w, result)
}
