package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

func TestCalculateDigest(t *testing.T) {
	ecdhFixture := &fixture.EcdhFixture{LocalSk: "0c", VendorPk: "04", VKey: "0x01", KeyHash: "ab", PublicValues: "0x", Proof: "0x"}
	data, err := json.Marshal(ecdhFixture)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	expected, err := fixture.Digest(ecdhFixture)
	assert.NoError(t, err)

	digest, err := calculateDigest("fixtures/ecdh_fixture.json", data)
	assert.NoError(t, err)
	assert.Equal(t, expected, digest)

	zkpoexFixture := &fixture.ZkPoExFixture{Key: fixture.ByteArray{1}, Nonce: fixture.ByteArray{2}, Round: 7, VKey: "0x02"}
	data, err = json.Marshal(zkpoexFixture)
	assert.NoError(t, err)
	expected, _ = fixture.Digest(zkpoexFixture)
	digest, err = calculateDigest("contracts/src/fixtures/zkpoex_fixture.json", data)
	assert.NoError(t, err)
	assert.Equal(t, expected, digest)

	_, err = calculateDigest("fixtures/other.json", data)
	assert.Error(t, err)
	_, err = calculateDigest("fixtures/ecdh_fixture.json", []byte("{"))
	assert.Error(t, err)
}
