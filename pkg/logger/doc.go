// Package logger builds *slog.Logger instances for the entitlement service.
//
// New accepts functional options selecting the output format (text or json),
// the minimum level, static attributes attached to every record and
// ContextExtractor callbacks that pull request-scoped values, such as the
// request id, out of the context on every Handle call.
//
// Attribute helpers (AccountID, PlanID, Status, ExternalRef and friends) keep
// key names consistent across services so log queries can rely on them.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "entitlekit"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "subscription canceled",
//		logger.AccountID(accountID),
//		logger.PlanID(planID),
//	)
package logger
