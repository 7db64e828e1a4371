// Package cfstore names the column-family-store backend slot from the
// storage configuration (see DESIGN.md for why no column-family library
// is wired in yet). It exposes the same storage.Backend shape with every
// method returning ErrUnimplemented, keeping the three-backend surface
// in place for future replacement without touching the service layer.
package cfstore

import (
	"context"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
	"github.com/shinemost/kvbroker/storage"
	"github.com/shinemost/kvbroker/wire"
)

// Backend is an unimplemented column-family-store placeholder.
type Backend struct {
	path string
}

// Open returns a Backend bound to path; every operation fails until a
// real column-family engine is wired in.
func Open(path string) (*Backend, error) {
	return &Backend{path: path}, nil
}

func (b *Backend) Get(context.Context, string, string) (wire.Value, bool, error) {
	return wire.Value{}, false, kverrors.ErrUnimplemented
}

func (b *Backend) Set(context.Context, string, string, wire.Value) (wire.Value, bool, error) {
	return wire.Value{}, false, kverrors.ErrUnimplemented
}

func (b *Backend) Contains(context.Context, string, string) (bool, error) {
	return false, kverrors.ErrUnimplemented
}

func (b *Backend) Del(context.Context, string, string) (wire.Value, bool, error) {
	return wire.Value{}, false, kverrors.ErrUnimplemented
}

func (b *Backend) GetAll(context.Context, string) ([]wire.Kvpair, error) {
	return nil, kverrors.ErrUnimplemented
}

func (b *Backend) Iter(context.Context, string) (storage.Iterator, error) {
	return nil, kverrors.ErrUnimplemented
}

func (b *Backend) Close() error { return nil }
