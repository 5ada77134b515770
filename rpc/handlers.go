package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/integrations/exports"
	"shiftchain/integrations/index"
	program "shiftchain/native/shift"
	"shiftchain/native/system"
)

type ProgramResult struct {
	ProgramID     crypto.Address `json:"programId"`
	MintAuthority crypto.Address `json:"mintAuthority"`
	Employer      crypto.Address `json:"employer"`
}

func (s *Server) handleSlot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SlotResult{Slot: s.ledger.Clock().Slot()})
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	authority, _ := program.FindMintAuthorityAddress(s.programID)
	employer, _ := program.FindEmployerAddress(s.programID)
	writeJSON(w, http.StatusOK, ProgramResult{ProgramID: s.programID, MintAuthority: authority, Employer: employer})
}

// handleRent prices the rent-exempt balance of an account of the given size.
func (s *Server) handleRent(w http.ResponseWriter, r *http.Request) {
	space, err := strconv.Atoi(r.URL.Query().Get("space"))
	if err != nil || space < 0 || space > system.MaxAccountSize {
		writeError(w, http.StatusBadRequest, "invalid space")
		return
	}
	writeJSON(w, http.StatusOK, RentResult{Space: space, Lamports: s.ledger.Rent().MinimumBalance(space)})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	acct, err := s.ledger.Account(addr)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, accountResult(addr, acct))
}

func (s *Server) handleMintAuthority(w http.ResponseWriter, r *http.Request) {
	addr, _ := program.FindMintAuthorityAddress(s.programID)
	var rec program.MintAuthority
	if !s.loadRecord(w, r, addr, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, mintAuthorityResult(addr, &rec))
}

func (s *Server) handleEmployer(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	var rec program.Employer
	if !s.loadRecord(w, r, addr, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, employerResult(addr, &rec))
}

func (s *Server) handleEmployee(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	var rec program.Employee
	if !s.loadRecord(w, r, addr, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, employeeResult(addr, &rec))
}

func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	var rec program.Shift
	if !s.loadRecord(w, r, addr, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, shiftResult(addr, &rec))
}

// loadRecord decodes the program record stored at addr into rec, answering
// 404 when addr holds no initialized record of that kind.
func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request, addr crypto.Address, rec program.Record) bool {
	acct, err := s.ledger.Account(addr)
	if err != nil {
		s.internalError(w, r, err)
		return false
	}
	if acct == nil || acct.Owner != s.programID {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s record at %s", rec.Kind(), addr))
		return false
	}
	if err := rec.UnmarshalBinary(acct.Data); err != nil || !rec.IsInitialized() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s record at %s", rec.Kind(), addr))
		return false
	}
	return true
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	filter := index.Filter{Shift: &addr}
	query := r.URL.Query()
	var err error
	if raw := query.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if raw := query.Get("fromSlot"); raw != "" {
		if filter.FromSlot, err = strconv.ParseUint(raw, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid fromSlot")
			return
		}
	}
	list, err := s.history.Settlements(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	switch format := strings.ToLower(query.Get("format")); format {
	case "", "json":
		writeJSON(w, http.StatusOK, list)
	case "csv", "jsonl":
		export := exports.SettlementsCSV
		contentType := "text/csv"
		if format == "jsonl" {
			export = exports.SettlementsJSONL
			contentType = "application/x-ndjson"
		}
		data, checksum, err := export(list)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Checksum-SHA256", checksum)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "unknown format "+format)
	}
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	totals, err := s.history.Totals(r.Context(), index.Filter{Owner: &addr})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	list, err := s.history.Registrations(r.Context(), addr)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleSubmit executes a signed transaction, or only simulates it when the
// simulate query parameter is true. Any evaluated transaction answers 200; the
// receipt code tells whether it committed.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := types.DecodeTransaction(req.Transaction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction: "+err.Error())
		return
	}
	simulate, _ := strconv.ParseBool(r.URL.Query().Get("simulate"))

	execute := s.ledger.Execute
	if simulate {
		execute = s.ledger.Simulate
	}
	receipt, err := execute(r.Context(), tx)
	if receipt == nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResult{Receipt: receipt, Simulated: simulate})
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "event index disabled")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("rpc request failed", "path", r.URL.Path, "requestId", RequestID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathAddress(w http.ResponseWriter, r *http.Request) (crypto.Address, bool) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return crypto.Address{}, false
	}
	return addr, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResult{Error: message, RequestID: w.Header().Get(HeaderRequestID)})
}
