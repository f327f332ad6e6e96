package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{utils.NewValidationMessage("name", "required"), http.StatusBadRequest},
		{fmt.Errorf("load sale: %w", utils.ErrorRecordNotFound), http.StatusNotFound},
		{utils.ErrAdminOnly, http.StatusForbidden},
		{utils.ErrEntryAlreadyBilled, http.StatusConflict},
		{utils.ErrRequestInProgress, http.StatusConflict},
		{fmt.Errorf("Posting:customer:7: %w", utils.ErrLockBusy), http.StatusServiceUnavailable},
		{utils.ErrInvalidWeight, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusOf(tc.err); got != tc.want {
			t.Fatalf("statusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
