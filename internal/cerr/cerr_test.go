package cerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesCanonicalMessage(t *testing.T) {
	err := New(InvalidAmount)
	assert.Equal(t, InvalidAmount, err.Code)
	assert.Equal(t, messages[InvalidAmount], err.Message)
	assert.Contains(t, err.Error(), "InvalidAmount")
}

func TestWrapUsesCustomMessage(t *testing.T) {
	err := Wrap(Overflow, "amount %d exceeds range", 42)
	assert.Equal(t, Overflow, err.Code)
	assert.Equal(t, "amount 42 exceeds range", err.Message)
}

func TestNameKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "NotFound", Name(NotFound))
	assert.Equal(t, "Unknown(9999)", Name(Code(9999)))
}

func TestIs(t *testing.T) {
	err := New(Cooldown)
	assert.True(t, Is(err, Cooldown))
	assert.False(t, Is(err, RateLimit))
	assert.False(t, Is(assertPlainError(), Cooldown))
}

func TestAllCodesCoversEveryRegisteredName(t *testing.T) {
	codes := AllCodes()
	assert.Len(t, codes, len(names))
	for _, c := range codes {
		assert.NotEmpty(t, messages[c], "code %d has no message", c)
	}
}

func assertPlainError() error {
	return &notACerr{}
}

type notACerr struct{}

func (*notACerr) Error() string { return "plain error" }
