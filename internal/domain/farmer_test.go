package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFarmerProfile() FarmerProfile {
	return FarmerProfile{
		Name:            "Abebe Kebede",
		Region:          "Yirgacheffe",
		ElevationMeters: 1950,
		GPS:             "6.1620,38.2058",
		Story:           "Third generation coffee farmer.",
		WalletAddress:   "addr1qxck7kelv8s2cqvz0yq9ma6ndfyt6vdrcs8xwu5a6k2u",
	}
}

func TestNewFarmer(t *testing.T) {
	farmer, err := NewFarmer("FARM-001", validFarmerProfile())
	require.NoError(t, err)

	assert.Equal(t, "FARM-001", farmer.FarmerID)
	assert.Equal(t, "Abebe Kebede", farmer.Name)
	assert.Equal(t, "6.1620,38.2058", farmer.GPS)
	assert.False(t, farmer.CreatedAt.IsZero())

	events := farmer.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "farmer.registered", events[0].EventType())
}

func TestNewFarmer_Validation(t *testing.T) {
	noName := validFarmerProfile()
	noName.Name = ""
	_, err := NewFarmer("FARM-001", noName)
	assert.ErrorIs(t, err, ErrEmptyFarmerName)

	noRegion := validFarmerProfile()
	noRegion.Region = ""
	_, err = NewFarmer("FARM-001", noRegion)
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestUpdateProfile(t *testing.T) {
	farmer, err := NewFarmer("FARM-001", validFarmerProfile())
	require.NoError(t, err)

	updated := validFarmerProfile()
	updated.Region = "Guji"
	updated.ElevationMeters = 2100
	require.NoError(t, farmer.UpdateProfile(updated))

	assert.Equal(t, "Guji", farmer.Region)
	assert.Equal(t, 2100, farmer.ElevationMeters)
}

func TestUpdateProfile_WalletImmutable(t *testing.T) {
	farmer, err := NewFarmer("FARM-001", validFarmerProfile())
	require.NoError(t, err)

	changed := validFarmerProfile()
	changed.WalletAddress = "addr1another0000000000000000000000000000000000000"
	err = farmer.UpdateProfile(changed)
	assert.ErrorIs(t, err, ErrWalletImmutable)

	// Echoing the current address back is not a change
	assert.NoError(t, farmer.UpdateProfile(validFarmerProfile()))
}

func TestUpdateProfile_WalletSettableWhenEmpty(t *testing.T) {
	profile := validFarmerProfile()
	profile.WalletAddress = ""
	farmer, err := NewFarmer("FARM-001", profile)
	require.NoError(t, err)

	profile.WalletAddress = "addr1qxck7kelv8s2cqvz0yq9ma6ndfyt6vdrcs8xwu5a6k2u"
	require.NoError(t, farmer.UpdateProfile(profile))
	assert.Equal(t, profile.WalletAddress, farmer.WalletAddress)
}
