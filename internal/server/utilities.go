package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/services/utilities"
)

const maxJSONBody = 64 << 10

type createUtilityBody struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

type updateUtilityBody struct {
	Value       *string `json:"value"`
	Description *string `json:"description"`
	Active      *bool   `json:"is_active"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", common.ErrInvalidInput, err)
	}
	return nil
}

func (s *HTTPServer) listUtilities(w http.ResponseWriter, r *http.Request) {
	list, err := s.utilities.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *HTTPServer) getUtility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.utilities.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *HTTPServer) createUtility(w http.ResponseWriter, r *http.Request) {
	var body createUtilityBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.utilities.Create(r.Context(), utilities.CreateRequest{
		Type:        body.Type,
		Value:       body.Value,
		Description: body.Description,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (s *HTTPServer) updateUtility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body updateUtilityBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.utilities.Update(r.Context(), id, utilities.UpdateRequest{
		Value:       body.Value,
		Description: body.Description,
		Active:      body.Active,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *HTTPServer) deleteUtility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.utilities.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Utility deleted successfully")
}
