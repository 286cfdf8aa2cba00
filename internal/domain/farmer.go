package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Farmer errors
var (
	ErrFarmerNotFound      = errors.New("farmer not found")
	ErrFarmerAlreadyExists = errors.New("farmer already exists")
	ErrEmptyFarmerName     = errors.New("farmer name is required")
	ErrEmptyRegion         = errors.New("region is required")
	ErrWalletImmutable     = errors.New("wallet address cannot be changed")
)

// Farmer is the producer profile referenced by batches
type Farmer struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FarmerID        string             `bson:"farmerId" json:"farmerId"`
	Name            string             `bson:"name" json:"name"`
	Region          string             `bson:"region" json:"region"`
	ElevationMeters int                `bson:"elevationMeters,omitempty" json:"elevationMeters,omitempty"`
	GPS             string             `bson:"gps,omitempty" json:"gps,omitempty"`
	Story           string             `bson:"story,omitempty" json:"story,omitempty"`
	PhotoURL        string             `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	WalletAddress   string             `bson:"walletAddress,omitempty" json:"walletAddress,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-" json:"-"`
}

// FarmerProfile carries the profile fields for creating or correcting a
// farmer. GPS is a free-form "lat,lon" coordinate pair.
type FarmerProfile struct {
	Name            string
	Region          string
	ElevationMeters int
	GPS             string
	Story           string
	PhotoURL        string
	WalletAddress   string
}

// NewFarmer creates a new Farmer profile
func NewFarmer(farmerID string, profile FarmerProfile) (*Farmer, error) {
	if profile.Name == "" {
		return nil, ErrEmptyFarmerName
	}
	if profile.Region == "" {
		return nil, ErrEmptyRegion
	}

	now := time.Now().UTC()
	farmer := &Farmer{
		ID:              primitive.NewObjectID(),
		FarmerID:        farmerID,
		Name:            profile.Name,
		Region:          profile.Region,
		ElevationMeters: profile.ElevationMeters,
		GPS:             profile.GPS,
		Story:           profile.Story,
		PhotoURL:        profile.PhotoURL,
		WalletAddress:   profile.WalletAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}

	farmer.addDomainEvent(&FarmerRegisteredEvent{
		FarmerID:     farmerID,
		Name:         profile.Name,
		Region:       profile.Region,
		RegisteredAt: now,
	})

	return farmer, nil
}

// UpdateProfile corrects the displayed profile fields. The wallet address is
// immutable once set.
func (f *Farmer) UpdateProfile(profile FarmerProfile) error {
	if profile.Name == "" {
		return ErrEmptyFarmerName
	}
	if profile.Region == "" {
		return ErrEmptyRegion
	}
	if profile.WalletAddress != "" && f.WalletAddress != "" && profile.WalletAddress != f.WalletAddress {
		return ErrWalletImmutable
	}

	f.Name = profile.Name
	f.Region = profile.Region
	f.ElevationMeters = profile.ElevationMeters
	f.GPS = profile.GPS
	f.Story = profile.Story
	f.PhotoURL = profile.PhotoURL
	if f.WalletAddress == "" {
		f.WalletAddress = profile.WalletAddress
	}
	f.UpdatedAt = time.Now().UTC()
	return nil
}

// addDomainEvent adds a domain event
func (f *Farmer) addDomainEvent(event DomainEvent) {
	f.DomainEvents = append(f.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (f *Farmer) GetDomainEvents() []DomainEvent {
	return f.DomainEvents
}

// ClearDomainEvents clears all domain events
func (f *Farmer) ClearDomainEvents() {
	f.DomainEvents = make([]DomainEvent, 0)
}
