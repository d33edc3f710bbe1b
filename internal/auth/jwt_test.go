package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue(7, "ada@test.test", "teacher", "aplus-test", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshJTI)

	access, err := Parse(pair.AccessToken, "secret", "aplus-test")
	require.NoError(t, err)
	assert.EqualValues(t, 7, access.UserID)
	assert.Equal(t, "teacher", access.Role)
	assert.Equal(t, TypeAccess, access.Type)
	assert.Equal(t, "ada@test.test", access.Subject)

	refresh, err := Parse(pair.RefreshToken, "secret", "aplus-test")
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, refresh.Type)
	assert.Equal(t, pair.RefreshJTI, refresh.ID)
}

func TestParseRejections(t *testing.T) {
	pair, err := Issue(7, "ada@test.test", "teacher", "aplus-test", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "wrong-key", "aplus-test")
	assert.Error(t, err)

	_, err = Parse(pair.AccessToken, "secret", "other-issuer")
	assert.Error(t, err)

	expired, err := Issue(7, "ada@test.test", "teacher", "aplus-test", "secret", -time.Minute, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, "secret", "aplus-test")
	assert.Error(t, err)
}
