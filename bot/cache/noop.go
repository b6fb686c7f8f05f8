package cache

import "context"

// Disabled is a bot.CacheStore that never hits and drops writes. It
// backs the CacheEnabled=false configuration.
type Disabled struct{}

func (Disabled) Exists(context.Context, string) (bool, error) { return false, nil }
func (Disabled) Get(context.Context, string) (string, error)  { return "", ErrNotFound }
func (Disabled) Set(context.Context, string, string) error    { return nil }
