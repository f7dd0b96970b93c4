package cast_test

import (
	"testing"
	"time"

	"github.com/entwine-orm/entwine/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	for _, name := range []string{"money", "json", "array", "date", "datetime", "bool", "int", "float", "msgpack"} {
		_, ok := cast.Lookup(name)
		assert.True(t, ok, "built-in cast %q should be registered", name)
	}

	_, ok := cast.Lookup("nope")
	assert.False(t, ok)

	assert.Panics(t, func() { cast.MustLookup("nope") })
}

func TestMoneyRoundTrip(t *testing.T) {
	m := cast.Money{}

	stored, err := m.Set(19.99)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), stored)

	domain, err := m.Get(stored)
	require.NoError(t, err)
	assert.Equal(t, 19.99, domain)

	// storage arriving as text from a driver still converts
	domain, err = m.Get("250")
	require.NoError(t, err)
	assert.Equal(t, 2.5, domain)

	_, err = m.Set(struct{}{})
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	j := cast.JSON{}

	stored, err := j.Set(map[string]interface{}{"a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, stored)

	domain, err := j.Get(stored)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1.0}, domain)

	_, err = j.Get("{broken")
	assert.Error(t, err)
}

func TestArrayRoundTrip(t *testing.T) {
	a := cast.Array{}

	stored, err := a.Set([]interface{}{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, `["x","y"]`, stored)

	domain, err := a.Get(stored)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", "y"}, domain)

	_, err = a.Set(map[string]interface{}{"a": 1})
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	d := cast.Date{}

	stored, err := d.Set(time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", stored)

	domain, err := d.Get("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), domain)

	nilValue, err := d.Get(nil)
	require.NoError(t, err)
	assert.Nil(t, nilValue)
}

func TestDateTime(t *testing.T) {
	dt := cast.DateTime{}

	stored, err := dt.Set(time.Date(2024, 3, 1, 15, 30, 45, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 15:30:45", stored)

	domain, err := dt.Get(stored)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 15, 30, 45, 0, time.UTC), domain)
}

func TestBool(t *testing.T) {
	b := cast.Bool{}

	stored, err := b.Set(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored)

	domain, err := b.Get(int64(1))
	require.NoError(t, err)
	assert.Equal(t, true, domain)

	domain, err = b.Get(int64(0))
	require.NoError(t, err)
	assert.Equal(t, false, domain)
}

func TestNumeric(t *testing.T) {
	n, err := cast.Int{}.Get("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	f, err := cast.Float{}.Get([]byte("1.5"))
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
}

func TestEncryptedRoundTrip(t *testing.T) {
	e, err := cast.NewEncrypted([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	stored, err := e.Set("top secret")
	require.NoError(t, err)
	assert.NotEqual(t, "top secret", stored)

	again, err := e.Set("top secret")
	require.NoError(t, err)
	assert.NotEqual(t, stored, again, "nonce should vary per Set")

	domain, err := e.Get(stored)
	require.NoError(t, err)
	assert.Equal(t, "top secret", domain)

	_, err = e.Get("not base64 at all!!!")
	assert.Error(t, err)

	_, err = cast.NewEncrypted([]byte("short"))
	assert.Error(t, err)
}

func TestMsgpackRoundTrip(t *testing.T) {
	m := cast.Msgpack{}

	stored, err := m.Set(map[string]interface{}{"a": int8(1)})
	require.NoError(t, err)

	domain, err := m.Get(stored)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": int8(1)}, domain)
}
