package backend

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hklemm/dimdocs/core"
	"github.com/julienschmidt/httprouter"
)

// Identity headers, set by the upstream identity provider. Their content is
// trusted input.
const (
	headerRole      = "X-Auth-Role"
	headerDimension = "X-Auth-Dimension"
	headerUser      = "X-Auth-User"
)

// we need the CoreDB in the backend
type context struct {
	db        *core.CoreDB
	actor     core.Actor
	sessionID string
}

type errorBody struct {
	Kind    core.ErrorKind `json:"kind"`
	Message string         `json:"message"`
}

type envelope struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *errorBody  `json:"error,omitempty"`
}

func writeResult(w http.ResponseWriter, result interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(envelope{OK: true, Result: result})
}

func writeError(w http.ResponseWriter, err error) {
	var kind = core.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(kind))
	json.NewEncoder(w).Encode(envelope{
		OK: false,
		Error: &errorBody{
			Kind:    kind,
			Message: err.Error(),
		},
	})
}

func httpStatus(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindIllegalTransition:
		return http.StatusUnprocessableEntity
	case core.KindPermissionDenied:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindRateLimited:
		return http.StatusTooManyRequests
	case core.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func middleware(db *core.CoreDB, requireIdentity bool, f func(http.ResponseWriter, *http.Request, *context, httprouter.Params) error) func(http.ResponseWriter, *http.Request, httprouter.Params) {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = &context{
			db: db,
		}

		// touch the session, so the cookie is set and the token is stable
		db.SessionManager.Put(req.Context(), "active", true)

		ctx.sessionID = db.SessionManager.Token(req.Context())
		if ctx.sessionID == "" {
			// brand-new session, commit early so the token already exists
			// during this request and unlock tokens land under it
			token, _, err := db.SessionManager.Commit(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			ctx.sessionID = token
		}

		role, roleOk := core.ParseRoleTier(req.Header.Get(headerRole))
		dimension, err := strconv.Atoi(req.Header.Get(headerDimension))

		if requireIdentity && (!roleOk || err != nil) {
			writeError(w, core.Errorf(core.KindPermissionDenied, "missing identity"))
			return
		}

		ctx.actor = core.Actor{
			Role:        role,
			DimensionID: dimension,
			Name:        req.Header.Get(headerUser),
		}

		if err := f(w, req, ctx, params); err != nil {
			writeError(w, err)
		}
	}
}

func NewBackendRouter(db *core.CoreDB) http.Handler {

	var router = httprouter.New()

	router.GET("/items/:id", middleware(db, true, getItem))
	router.GET("/items/:id/access", middleware(db, true, effectiveAccess))
	router.GET("/items/:id/grants", middleware(db, true, listGrants))

	router.POST("/items", middleware(db, true, createItem))
	router.POST("/items/:id/rename", middleware(db, true, renameItem))
	router.POST("/items/:id/delete", middleware(db, true, deleteItem))
	router.POST("/items/:id/status", middleware(db, true, statusChange))

	router.POST("/items/:id/lock", middleware(db, true, lock))
	router.POST("/items/:id/unlock", middleware(db, true, unlock))
	router.POST("/items/:id/reset-pin", middleware(db, true, resetPin))

	router.POST("/items/:id/grants", middleware(db, true, shareSave))

	// trusted task-subsystem bridge, no actor involved
	router.POST("/tasklock/:id/assign", middleware(db, false, taskAssigned))
	router.POST("/tasklock/:id/resolve", middleware(db, false, taskResolved))

	return router
}

func itemID(params httprouter.Params) (int, error) {
	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil || id <= 0 {
		return 0, core.Errorf(core.KindValidation, "bad item id %q", params.ByName("id"))
	}
	return id, nil
}

func readBody(req *http.Request, into interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(into); err != nil {
		return core.Errorf(core.KindValidation, "bad request body: %v", err)
	}
	return nil
}
