package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
)

type priceBody struct {
	Channel   string           `json:"channel" validate:"required"`
	BasePrice *decimal.Decimal `json:"base_price" validate:"required,money"`
	StartTime *string          `json:"start_time" validate:"omitempty,clock"`
}

func decode(t *testing.T, body string) (priceBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest priceBody
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func fieldDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "expected field details, got %#v", typed.Details())
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"channel":"retail","base_price":"199.99","start_time":"09:30"}`)
	require.NoError(t, err)
	assert.Equal(t, "retail", got.Channel)
	assert.True(t, got.BasePrice.Equal(decimal.RequireFromString("199.99")))
}

func TestDecodeJSONBodyAcceptsZeroMoney(t *testing.T) {
	_, err := decode(t, `{"channel":"retail","base_price":0}`)
	require.NoError(t, err)
}

func TestDecodeJSONBodyRejectsNegativeMoney(t *testing.T) {
	_, err := decode(t, `{"channel":"retail","base_price":"-1"}`)
	details := fieldDetails(t, err)
	assert.Equal(t, "must be a non-negative amount", details["base_price"])
}

func TestDecodeJSONBodyRejectsBadClock(t *testing.T) {
	for _, clock := range []string{"9:30", "24:00", "09:30:00"} {
		_, err := decode(t, `{"channel":"retail","base_price":"1","start_time":"`+clock+`"}`)
		details := fieldDetails(t, err)
		assert.Equal(t, "must be HH:MM", details["start_time"], clock)
	}
}

func TestDecodeJSONBodyReportsMissingFieldsByJSONName(t *testing.T) {
	_, err := decode(t, `{}`)
	details := fieldDetails(t, err)
	assert.Equal(t, "is required", details["channel"])
	assert.Equal(t, "is required", details["base_price"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"channel":"retail","base_price":"1","surprise":true}`)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryParsers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&product_id=not-a-uuid&from=2026-01-02T03:04:05Z&auto_apply=true", nil)

	limit, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	_, err = ParseQueryInt(req, "limit", 25, 10, 100)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryUUID(req, "product_id")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing, err := ParseQueryUUID(req, "variant_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	from, err := ParseQueryTime(req, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, 2026, from.Year())

	auto, err := ParseQueryBool(req, "auto_apply")
	require.NoError(t, err)
	require.NotNil(t, auto)
	assert.True(t, *auto)
}
