package analysis

import (
	"context"
	"errors"
	"net/http"

	"github.com/seenimoa/stockdash/internal/datasource"
	"github.com/seenimoa/stockdash/internal/normalize"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// Problem is the user-facing description of a failed analysis.
type Problem struct {
	Kind    string `json:"error_kind"`
	Message string `json:"error"`
	Remedy  string `json:"remedy,omitempty"`
	Status  int    `json:"-"`
}

// Describe maps any pipeline error to a message, a remedy and an HTTP status.
func Describe(err error) Problem {
	var (
		vErr *utils.ValidationError
		fErr *datasource.FetchError
		nErr *normalize.NormalizeError
	)

	switch {
	case err == nil:
		return Problem{}

	case errors.As(err, &vErr):
		p := Problem{Kind: string(vErr.Kind), Message: vErr.Error(), Status: http.StatusBadRequest}
		switch vErr.Kind {
		case utils.EmptyInput:
			p.Remedy = "Enter a ticker symbol such as AAPL."
		case utils.InvalidCharacters:
			p.Remedy = "Use only letters, digits, '.' and '-'."
		case utils.TooLong:
			p.Remedy = "Check the ticker; symbols are short, e.g. MSFT or BRK-B."
		}
		return p

	case errors.As(err, &fErr):
		p := Problem{Kind: string(fErr.Kind), Message: fErr.Error()}
		switch fErr.Kind {
		case datasource.NotFound:
			p.Status = http.StatusNotFound
			p.Remedy = "Check the ticker symbol and try again."
		case datasource.RateLimited:
			p.Status = http.StatusTooManyRequests
			p.Remedy = "The data provider is throttling requests; wait a minute and retry."
		case datasource.EmptyResult:
			p.Status = http.StatusUnprocessableEntity
			p.Remedy = "No trading data in this period; pick a longer range."
		default:
			p.Status = http.StatusBadGateway
			p.Remedy = "Could not reach the data provider; check your connection and retry."
		}
		return p

	case errors.As(err, &nErr):
		return Problem{
			Kind:    string(nErr.Kind),
			Message: nErr.Error(),
			Remedy:  "The provider returned no usable price rows; pick another range.",
			Status:  http.StatusUnprocessableEntity,
		}

	case errors.Is(err, models.ErrInvalidRange):
		return Problem{
			Kind:    "InvalidRange",
			Message: err.Error(),
			Remedy:  "Pick one of 1mo, 3mo, 6mo, 1y, 2y or 5y.",
			Status:  http.StatusBadRequest,
		}

	case errors.Is(err, ErrSuperseded):
		return Problem{
			Kind:    "Superseded",
			Message: err.Error(),
			Remedy:  "A newer request replaced this one.",
			Status:  http.StatusConflict,
		}

	case errors.Is(err, context.DeadlineExceeded):
		return Problem{
			Kind:    "Timeout",
			Message: "the analysis timed out",
			Remedy:  "Retry in a moment.",
			Status:  http.StatusGatewayTimeout,
		}

	case errors.Is(err, context.Canceled):
		return Problem{Kind: "Canceled", Message: "the analysis was canceled", Status: 499}
	}

	return Problem{
		Kind:    "Internal",
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
	}
}
