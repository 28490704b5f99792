package http

import (
	"context"
	"errors"
	"net/http"

	"pocketflow/internal/core"
	"pocketflow/internal/log"
)

func (s *Server) handleMissingOwner(w http.ResponseWriter, r *http.Request) {
	BadRequestError("User ID is required.").Write(w)
}

func (s *Server) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := pathParam(r, "userId")
	if ownerID == "" {
		s.handleMissingOwner(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	records, err := s.svc.ListByOwner(ctx, ownerID)
	s.ops.observe(log.OpList, err)
	if err != nil {
		s.fail(w, r, log.OpList, err, log.NewFields().WithRecord("", ownerID, "", "", ""))
		return
	}
	if records == nil {
		records = []core.FinancialRecord{}
	}
	log.FromContext(ctx).DebugContext(ctx, "Records listed", log.FieldOwnerID, ownerID, log.FieldCount, len(records))
	NewJSONResponse().JSON(records).Write(w)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		s.ops.observe(log.OpCreate, err)
		BadRequestError("Request body must be a JSON object.").Write(w)
		return
	}
	rec, err := p.toRecord()
	if err != nil {
		s.ops.observe(log.OpCreate, err)
		s.fail(w, r, log.OpCreate, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	created, err := s.svc.Create(ctx, rec)
	s.ops.observe(log.OpCreate, err)
	if err != nil {
		s.fail(w, r, log.OpCreate, err, log.NewFields().WithRecord("", rec.OwnerID, "", rec.Category, rec.PaymentMethod))
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/financial-records/"+created.ID).
		JSON(created).
		Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	p, err := decodePayload(w, r)
	if err != nil {
		s.ops.observe(log.OpUpdate, err)
		BadRequestError("Request body must be a JSON object.").Write(w)
		return
	}
	patch, err := p.toPatch()
	if err != nil {
		s.ops.observe(log.OpUpdate, err)
		s.fail(w, r, log.OpUpdate, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	updated, err := s.svc.Update(ctx, id, patch)
	s.ops.observe(log.OpUpdate, err)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err, log.NewFields().WithRecord(id, "", "", "", ""))
		return
	}
	NewJSONResponse().JSON(updated).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	_, err := s.svc.Delete(ctx, id)
	s.ops.observe(log.OpDelete, err)
	if err != nil {
		s.fail(w, r, log.OpDelete, err, log.NewFields().WithRecord(id, "", "", "", ""))
		return
	}
	NewJSONResponse().JSON(MessageBody{Message: "Record deleted successfully."}).Write(w)
}

// fail writes the mapped error response. Server-side failures are logged at
// error level; client mistakes are already visible in the access log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error, fields log.LogFields) {
	if !errors.Is(err, core.ErrValidation) && !errors.Is(err, core.ErrNotFound) {
		if fields == nil {
			fields = log.NewFields()
		}
		s.logger.LogError(r.Context(), "Record operation failed", err, log.ComponentRecord, op,
			fields.WithErrorType(core.ErrorType(err)))
	}
	FromError(err).Write(w)
}
