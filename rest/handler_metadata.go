package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/model"
)

func (s *Server) HandleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var fl model.Flow
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&fl); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid flow definition")
		return
	}
	if err := s.metadataService.ValidateFlow(fl); err != nil {
		logger.Error("error validating flow", zap.String("flow", fl.Id), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.metadataService.SaveFlow(fl); err != nil {
		logger.Error("error creating flow", zap.String("flow", fl.Id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error creating flow")
		return
	}
	respondOK(w, map[string]any{"created": true})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	fl, err := s.metadataService.GetMetadataStorage().GetFlowDefinition(id)
	if err != nil {
		logger.Info("flow does not exist", zap.String("flow", id))
		respondWithError(w, statusFor(err), "flow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, fl)
}

func (s *Server) HandleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.metadataService.DeleteFlow(id); err != nil {
		logger.Error("error deleting flow", zap.String("flow", id), zap.Error(err))
		respondWithError(w, statusFor(err), "error deleting flow")
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

func (s *Server) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.metadataService.GetMetadataStorage().ListFlowDefinitions()
	if err != nil {
		logger.Error("error listing flows", zap.Error(err))
		respondWithError(w, statusFor(err), "error listing flows")
		return
	}
	respondOK(w, map[string]any{"flows": ids})
}
