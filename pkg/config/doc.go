// Package config loads biolink configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by BIOLINK_CONFIG_FILE, then BIOLINK_* environment variables.
// Environment variables always win.
//
//	server:
//	  port: "8080"
//	  health_port: "9090"
//	storage:
//	  mongo_uri: mongodb://mongo:27017
//	  redis_url: redis://redis:6379/0
//	auth:
//	  otp_ttl: 10m
//	digest:
//	  schedule: "0 8 * * 1"
//
// Secrets are normally only given through the environment:
//
//	BIOLINK_JWT_SECRET
//	BIOLINK_RESEND_API_KEY
//	BIOLINK_STRIPE_SECRET_KEY / BIOLINK_STRIPE_WEBHOOK_SECRET
//	BIOLINK_DOMAINS_API_KEY
//
// Billing and domain registration are switched off when their keys are empty;
// see BillingEnabled and DomainsEnabled.
package config
