package validation

import (
	"errors"
	"testing"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/request"
)

func ptr(f float64) *float64 { return &f }

func TestValidateAppendEvent(t *testing.T) {
	valid := request.AppendEventRequest{Date: "2024-03-15", Action: "Buy", Quantity: 10, Price: 100}

	t.Run("valid request passes", func(t *testing.T) {
		if err := ValidateAppendEvent(valid); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("optional fields pass when well formed", func(t *testing.T) {
		req := valid
		req.Action = "sell"
		req.Cost = ptr(1005.5)
		req.Tax = 3.5
		req.Class = "FUND"
		if err := ValidateAppendEvent(req); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*request.AppendEventRequest)
		fields []string
	}{
		{"missing date", func(r *request.AppendEventRequest) { r.Date = "" }, []string{"date"}},
		{"wrong date layout", func(r *request.AppendEventRequest) { r.Date = "15-03-2024" }, []string{"date"}},
		{"missing action", func(r *request.AppendEventRequest) { r.Action = " " }, []string{"action"}},
		{"unknown action", func(r *request.AppendEventRequest) { r.Action = "dividend" }, []string{"action"}},
		{"zero quantity", func(r *request.AppendEventRequest) { r.Quantity = 0 }, []string{"quantity"}},
		{"negative price", func(r *request.AppendEventRequest) { r.Price = -1 }, []string{"price"}},
		{"zero cost override", func(r *request.AppendEventRequest) { r.Cost = ptr(0) }, []string{"cost"}},
		{"negative tax", func(r *request.AppendEventRequest) { r.Tax = -0.5 }, []string{"tax"}},
		{"negative charges", func(r *request.AppendEventRequest) { r.Charges = -2 }, []string{"charges"}},
		{"unknown class", func(r *request.AppendEventRequest) { r.Class = "bond" }, []string{"class"}},
		{
			"several fields at once",
			func(r *request.AppendEventRequest) { r.Date, r.Quantity, r.Price = "", -1, 0 },
			[]string{"date", "quantity", "price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := ValidateAppendEvent(req)
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Errorf("expected %d field errors, got %v", len(tt.fields), verr.Fields)
			}
			for _, f := range tt.fields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("expected an error for field %q, got %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestValidateFingerprint(t *testing.T) {
	if err := ValidateFingerprint(request.FingerprintRequest{Date: "2024-03-15", Action: "S", Quantity: 1, Price: 1}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := ValidateFingerprint(request.FingerprintRequest{Date: "2024-03-15", Action: "Buy", Quantity: 1})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if verr.Fields["price"] != "price must be positive" {
		t.Errorf("unexpected field errors: %v", verr.Fields)
	}
	if verr.Error() != "price: price must be positive" {
		t.Errorf("unexpected message: %q", verr.Error())
	}
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	for _, id := range []string{"", "lot-1", "6ba7b810-9dad-11d1-80b4"} {
		if err := ValidateUUID(id); !errors.Is(err, ErrInvalidUUID) {
			t.Errorf("ValidateUUID(%q) = %v, want ErrInvalidUUID", id, err)
		}
	}
}

func TestValidateInstrumentKey(t *testing.T) {
	for _, key := range []string{"INFY", "bajaj_auto", "M&M", "120503"} {
		if err := ValidateInstrumentKey(key); err != nil {
			t.Errorf("ValidateInstrumentKey(%q) = %v, want nil", key, err)
		}
	}
	for _, key := range []string{"", "../INFY", "IN$FY", "A/B", "_X"} {
		if err := ValidateInstrumentKey(key); err == nil {
			t.Errorf("ValidateInstrumentKey(%q) = nil, want error", key)
		}
	}
}
