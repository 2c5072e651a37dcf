package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_ZeroValueIsNotOK(t *testing.T) {
	var o Outcome[int]

	assert.False(t, o.OK())
	assert.Equal(t, StatusUnset, o.Status())
	assert.Equal(t, unsetMessage, o.ErrorMsg())
	assert.Error(t, o.Err())

	_, ok := o.Value()
	assert.False(t, ok)
}

func TestOutcome_States(t *testing.T) {
	tests := []struct {
		name      string
		outcome   Outcome[int]
		wantOK    bool
		wantValue bool
		wantMsg   string
	}{
		{"succeeded", Succeed(3), true, true, ""},
		{"empty", Empty[int](), true, false, ""},
		{"failed", Fail[int]("boom"), false, false, "boom"},
		{"failed formatted", Failf[int]("item %d missing", 2), false, false, "item 2 missing"},
		{"failed without message", Fail[int](""), false, false, "operation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOK, tt.outcome.OK())
			_, ok := tt.outcome.Value()
			assert.Equal(t, tt.wantValue, ok)
			assert.Equal(t, tt.wantMsg, tt.outcome.ErrorMsg())
			if tt.wantOK {
				assert.NoError(t, tt.outcome.Err())
			} else {
				assert.EqualError(t, tt.outcome.Err(), tt.wantMsg)
			}
		})
	}
}

func TestOutcome_DataOnlyOnSuccess(t *testing.T) {
	assert.Equal(t, 7, Succeed(7).Data())
	assert.Equal(t, 0, Empty[int]().Data())
	assert.Equal(t, None{}, Done().Data())
	assert.Equal(t, StatusSucceeded, Done().Status())
}
