// Package kv abstracts the Redis command surface used by the operation
// dispatcher behind a single Store interface.
//
// Two backends are provided: a real Redis adapter wrapping go-redis/v9 for
// production use, and an in-memory implementation with TTL support, glob key
// matching, and a local pub/sub hub for tests and dry runs. Backends register
// themselves through RegisterBackend and are constructed via
// NewStoreFromConfig.
//
// Example usage:
//
//	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	ctx := context.Background()
//	if err := store.Set(ctx, "key", "value", 10*time.Second); err != nil {
//		log.Fatal(err)
//	}
//
//	value, err := store.Get(ctx, "key")
//	if errors.Is(err, kv.ErrNotFound) {
//		log.Println("key not found")
//	}
//
// Backends that cannot implement a command (the in-memory store has no Lua
// interpreter and no extension modules) return ErrUnsupported for it.
package kv
