package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Ridge", "Predict")

	want := "priceml: Ridge: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// NotFittedError型にキャスト可能か確認
	var nfErr *NotFittedError
	if !As(err, &nfErr) {
		t.Fatal("Error should be castable to *NotFittedError")
	}
	if nfErr.ModelName != "Ridge" || nfErr.Method != "Predict" {
		t.Errorf("unexpected fields: %+v", nfErr)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}
}

func TestNewDimensionError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		exp     int
		got     int
		axis    int
		wantMsg string
	}{
		{
			name:    "row mismatch",
			op:      "Ridge.Fit",
			exp:     10,
			got:     8,
			axis:    0,
			wantMsg: "priceml: Ridge.Fit: dimension mismatch on axis 0 (rows). Expected 10, got 8",
		},
		{
			name:    "feature mismatch",
			op:      "Ridge.Predict",
			exp:     5,
			got:     3,
			axis:    1,
			wantMsg: "priceml: Ridge.Predict: dimension mismatch on axis 1 (features). Expected 5, got 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDimensionError(tt.op, tt.exp, tt.got, tt.axis)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			var dimErr *DimensionError
			if !As(err, &dimErr) {
				t.Fatal("Error should be castable to *DimensionError")
			}
			if dimErr.Expected != tt.exp || dimErr.Got != tt.got || dimErr.Axis != tt.axis {
				t.Errorf("unexpected fields: %+v", dimErr)
			}
		})
	}
}

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError("automobile.csv", "price", "target column not found")

	want := `priceml: table "automobile.csv": column "price": target column not found`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var schemaErr *SchemaError
	if !As(err, &schemaErr) {
		t.Fatal("Error should be castable to *SchemaError")
	}
	if schemaErr.Table != "automobile.csv" || schemaErr.Column != "price" {
		t.Errorf("unexpected fields: %+v", schemaErr)
	}
}

func TestErrorChaining(t *testing.T) {
	// ラップしても errors.Is でセンチネルを判定できる
	err := Wrap(ErrEmptyData, "failed to build feature matrix")
	err = Wrapf(err, "experiment %q", "ridge/numeric")

	if !Is(err, ErrEmptyData) {
		t.Error("wrapped error should match ErrEmptyData")
	}
	if !strings.Contains(err.Error(), "ridge/numeric") {
		t.Errorf("outer message lost: %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("alpha", "must be non-negative", -1.0)

	want := "priceml: validation failed for parameter 'alpha': must be non-negative (got: -1)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}
