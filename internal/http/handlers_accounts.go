package http

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type createAccountRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), ownerFrom(r.Context()), req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, account)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, accounts)
}

type accountBalanceResponse struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	balance, err := s.ledger.AccountBalance(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, accountBalanceResponse{AccountID: id, Balance: balance})
}
