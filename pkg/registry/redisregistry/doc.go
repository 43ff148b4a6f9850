// Package redisregistry provides a registry shared across processes
// through Redis.
//
// Entries are kept in a Redis hash so that Lookup and subscription
// replay see the current population, and add/remove notifications fan
// out over a pub/sub channel so every process observes churn from every
// other process. The package satisfies registry.Registry, so a pipeline
// built on flow.Entries works unchanged against a Redis-backed
// registry:
//
//	reg, err := redisregistry.New(redisregistry.Config{Redis: rdb}, logger)
//	if err != nil {
//		return err
//	}
//	defer reg.Close()
//
//	res := flow.Entries("(type=endpoint)").Run(flow.NewContext(reg), handle)
//
// Entry values must be JSON-serializable; remote processes see the
// decoded JSON, not the original Go value.
package redisregistry
