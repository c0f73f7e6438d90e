package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := LoadOrCreateCipher(NewMemoryStore())
	require.NoError(t, err)

	token, err := c.Encrypt("s3cr3t'pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.NotContains(t, token, "s3cr3t")
	assert.True(t, IsEncrypted(token))

	plain, err := c.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t'pass", plain)
}

func TestCipher_EncryptIsIdempotentOnTokens(t *testing.T) {
	c := NewCipher([]byte("pass"), []byte("salt-salt-salt-1"))
	token, err := c.Encrypt("hunter2")
	require.NoError(t, err)

	again, err := c.Encrypt(token)
	require.NoError(t, err)
	assert.Equal(t, token, again)
}

func TestCipher_EmptyPassword(t *testing.T) {
	c := NewCipher([]byte("pass"), []byte("salt"))
	token, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, token)

	plain, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestCipher_RejectsPlaintextAndForeignKeys(t *testing.T) {
	a := NewCipher([]byte("a"), []byte("salt"))
	b := NewCipher([]byte("b"), []byte("salt"))

	_, err := a.Decrypt("short")
	assert.ErrorIs(t, err, ErrNotEncrypted)

	token, err := a.Encrypt("x")
	require.NoError(t, err)
	_, err = b.Decrypt(token)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestIsEncrypted_IsStructural(t *testing.T) {
	assert.False(t, IsEncrypted(""))
	assert.False(t, IsEncrypted("abc"))
	assert.False(t, IsEncrypted(TokenPrefix+"!!!"))
	assert.False(t, IsEncrypted(TokenPrefix+"AAAA"))
}

func TestLoadOrCreateCipher_ReusesStoredKey(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))

	first, err := LoadOrCreateCipher(store)
	require.NoError(t, err)
	token, err := first.Encrypt("pw")
	require.NoError(t, err)

	second, err := LoadOrCreateCipher(store)
	require.NoError(t, err)
	plain, err := second.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "pw", plain)
}

func TestLoadOrCreateCipher_CorruptKey(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(masterKeyName, []byte("not base64!")))
	_, err := LoadOrCreateCipher(store)
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.json")
	store := NewFileStore(path)

	v, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, store.Set("k", []byte{0, 1, 2}))
	v, err = store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Delete("k"))
	require.NoError(t, store.Delete("k"))
	v, err = store.Get("k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, store.Set("k", buf))
	buf[0] = 'x'

	v, _ := store.Get("k")
	assert.Equal(t, "abc", string(v))
}

func TestMaskPassword(t *testing.T) {
	cases := map[string]string{
		"host=db port=5432 user=u password=hunter2 dbname=x": "host=db port=5432 user=u password=*** dbname=x",
		"Server=db;User Id=u;Password=hunter2;":             "Server=db;User Id=u;Password=***;",
		"u:hunter2@tcp(db:3306)/shop?parseTime=true":        "u:***@tcp(db:3306)/shop?parseTime=true",
		"oracle://u:p@ss@db:1521/XE":                        "oracle://u:***@db:1521/XE",
		"sqlserver://u:pw@db:1433?database=erp":             "sqlserver://u:***@db:1433?database=erp",
		"postgres://db:5432/sales?sslmode=disable":          "postgres://db:5432/sales?sslmode=disable",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskPassword(in), in)
	}
}
