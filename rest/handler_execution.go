package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowkeeper/executor"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/model"
	"go.uber.org/zap"
)

func (s *Server) HandleLaunchFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req model.LaunchRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid launch request")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.executor.Launch(ctx, id, req.Input, flow.NewExternalContext("", req.Parameters))
	if err != nil {
		logger.Error("error launching flow", zap.String("flow", id), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, toFlowExecution(res))
}

func (s *Server) HandleResumeFlow(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req model.ResumeRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid resume request")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.executor.Resume(ctx, key, flow.NewExternalContext(req.Event, req.Parameters))
	if err != nil {
		logger.Error("error resuming flow", zap.String("key", key), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, toFlowExecution(res))
}

func (s *Server) HandleGetFlowExecution(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.executor.Inspect(ctx, key)
	if err != nil {
		logger.Info("flow execution not found", zap.String("key", key), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, toFlowExecution(res))
}

func toFlowExecution(res *executor.Result) model.FlowExecution {
	fe := model.FlowExecution{
		FlowId: res.FlowId,
		Key:    res.Key,
		Active: res.Active,
	}
	if session, err := res.Execution.GetActiveSession(); err == nil {
		fe.ActiveFlowId = session.GetFlowId()
		fe.State = session.GetStateId()
		fe.Status = session.GetStatus().String()
		fe.FlowScope = session.GetScope()
	}
	if flash := res.Execution.GetFlashScope(); len(flash) > 0 {
		fe.FlashScope = flash
	}
	if res.Outcome != nil {
		fe.Outcome = &model.Outcome{Id: res.Outcome.Id, Attributes: res.Outcome.Attributes}
	}
	if res.Redirect != nil {
		fe.Redirect = &model.Redirect{
			Type:   string(res.Redirect.Type),
			View:   res.Redirect.View,
			FlowId: res.Redirect.FlowId,
			Input:  res.Redirect.Input,
			Url:    res.Redirect.Url,
		}
	}
	return fe
}
