package client

import (
	"context"

	"github.com/google/uuid"
)

// UUIDResolver mints a fresh random identity per trip without a vehicle service.
type UUIDResolver struct{}

func (UUIDResolver) ResolveIdentity(context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
