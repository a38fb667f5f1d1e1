// Package storage defines the persistence model shared by the biolink services.
//
// # Overview
//
// Accounts, offers and tracking events live in MongoDB (see storage/mongodb),
// short-lived secrets such as login codes live in Redis (see storage/cache).
// This package only holds the shared types, the lookup interfaces the API
// layer depends on and the backend configuration.
//
// # Collections
//
//   - users: accounts created on first login, optionally referred by a merchant
//   - merchants: business accounts, linked to an owning user
//   - offers: affiliate offers published by merchants
//   - trackers: click and earning records written by the link redirector
//   - subscriptions: billing state mirrored from Stripe
//
// # Usage Example
//
//	cfg := storage.DefaultConfig()
//	store, err := mongodb.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer store.Close(ctx)
//
//	user, err := store.UpsertUserByEmail(ctx, "ada@example.com")
package storage
