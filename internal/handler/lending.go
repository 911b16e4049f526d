package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/darshprotocol/lending-engine/internal/domain"
	"github.com/darshprotocol/lending-engine/internal/service"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
	"github.com/darshprotocol/lending-engine/pkg/response"
)

type LendingHandler struct {
	service   *service.LendingService
	validator *validator.Validate
}

func NewLendingHandler(service *service.LendingService) *LendingHandler {
	return &LendingHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateOffer handles POST /api/v1/offers
func (h *LendingHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateOfferRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	offer, err := h.service.CreateOffer(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, offer)
}

// AcceptOffer handles POST /api/v1/offers/{offerId}/accept
func (h *LendingHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := pathID(r, "offerId")
	if err != nil {
		response.BadRequest(w, "invalid offer id", err)
		return
	}
	var request domain.AcceptOfferRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	loan, err := h.service.AcceptOffer(r.Context(), offerID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, loan)
}

// CancelOffer handles POST /api/v1/offers/{offerId}/cancel
func (h *LendingHandler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := pathID(r, "offerId")
	if err != nil {
		response.BadRequest(w, "invalid offer id", err)
		return
	}
	var request domain.CancelOfferRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	offer, err := h.service.CancelOffer(r.Context(), offerID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, offer)
}

// GetOffer handles GET /api/v1/offers/{offerId}
func (h *LendingHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := pathID(r, "offerId")
	if err != nil {
		response.BadRequest(w, "invalid offer id", err)
		return
	}

	offer, err := h.service.GetOffer(r.Context(), offerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, offer)
}

// ListOffers handles GET /api/v1/offers
func (h *LendingHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, offers)
}

// RepayLoan handles POST /api/v1/loans/{loanId}/repay
func (h *LendingHandler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}
	var request domain.RepayLoanRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	result, err := h.service.RepayLoan(r.Context(), loanID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, result)
}

// LiquidateLoan handles POST /api/v1/loans/{loanId}/liquidate
func (h *LendingHandler) LiquidateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}
	var request domain.LiquidateLoanRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	result, err := h.service.LiquidateLoan(r.Context(), loanID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, result)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LendingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, loan)
}

// ListLoans handles GET /api/v1/loans
func (h *LendingHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, loans)
}

// OwedAmount handles GET /api/v1/loans/{loanId}/owed
func (h *LendingHandler) OwedAmount(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	owed, err := h.service.OwedAmount(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, owed)
}

// BorrowerLtv handles GET /api/v1/borrowers/{account}/ltv
func (h *LendingHandler) BorrowerLtv(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	if account == "" {
		response.BadRequest(w, "invalid account", nil)
		return
	}

	ltv, err := h.service.BorrowerLtv(r.Context(), account)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, ltv)
}

// GetActivity handles GET /api/v1/borrowers/{account}/activity
func (h *LendingHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	if account == "" {
		response.BadRequest(w, "invalid account", nil)
		return
	}

	activity, err := h.service.GetActivity(r.Context(), account)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, activity)
}

// Deposit handles POST /api/v1/accounts/{account}/deposit
func (h *LendingHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	if account == "" {
		response.BadRequest(w, "invalid account", nil)
		return
	}
	var request domain.DepositRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	balance, err := h.service.Deposit(r.Context(), account, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, balance)
}

// SetPriceFeed handles POST /api/v1/feeds
func (h *LendingHandler) SetPriceFeed(w http.ResponseWriter, r *http.Request) {
	var request domain.SetPriceFeedRequest
	if err := h.decode(r, &request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.service.SetPriceFeed(r.Context(), &request); err != nil {
		h.writeError(w, err)
		return
	}
	response.Success(w, request)
}

func (h *LendingHandler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validator.Struct(dst)
}

func (h *LendingHandler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, customError.ErrOfferNotFound) || errors.Is(err, customError.ErrLoanNotFound) {
		response.NotFound(w, err.Error())
		return
	}
	response.BusinessError(w, err)
}

func pathID(r *http.Request, key string) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)[key], 10, 64)
}
