package cryptoutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

func TestHasherKnownVectors(t *testing.T) {
	tests := []struct {
		alg  cryptoutil.HashAlgorithm
		want string
	}{
		{cryptoutil.SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{cryptoutil.BLAKE2b256, "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319"},
	}
	for _, tc := range tests {
		t.Run(string(tc.alg), func(t *testing.T) {
			h, err := cryptoutil.NewHasher(tc.alg)
			require.NoError(t, err)

			got, err := h.Hash([]byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.alg, h.Algorithm())
		})
	}
}

func TestDigestRoundTripsThroughParse(t *testing.T) {
	d, err := cryptoutil.Digest(cryptoutil.BLAKE2b256, []byte("ledger"))
	require.NoError(t, err)

	sum, alg := cryptoutil.ParseHashWithAlgorithm(d)
	assert.Equal(t, cryptoutil.BLAKE2b256, alg)
	assert.True(t, cryptoutil.IsHexDigest(sum, 32))

	sum, alg = cryptoutil.ParseHashWithAlgorithm("deadbeef")
	assert.Equal(t, "deadbeef", sum)
	assert.Empty(t, alg)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := cryptoutil.NewHasher("md4")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}
