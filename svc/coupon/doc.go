// Package coupon redeems promotional codes.
//
// A redemption row per (code, account) is the only record of "already used".
// Redeeming twice returns the first result flagged Duplicate and never grants
// twice. Codes are case-insensitive and stored upper-case.
//
// Effects:
//   - discount: a marker read by checkout through DiscountFor
//   - bonus: additive operations and category slots via subscription.ApplyBonus
//   - trial: a non-renewing assignment of the trial tier's plan, through the
//     same transition as a purchase
package coupon
