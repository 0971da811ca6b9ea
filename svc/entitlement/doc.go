// Package entitlement answers "may this account do X right now".
//
// Resolver is pure: built from an effective plan and bonus quota, its
// methods take current usage and return a Decision. A denied Decision names
// the limit or feature that caused it so clients can route to an upgrade
// prompt. Decision.Err converts a denial into a *DeniedError matching
// apperr.ErrDenied.
//
// Service wires the Resolver to persisted state. CheckAndRecordOperation and
// CheckAndRecordMinutes read the subscription, aggregate the current period,
// decide and append the usage event in one transaction. Replaying an
// artifact that was already billed returns an allowed, Duplicate decision
// without writing.
package entitlement
