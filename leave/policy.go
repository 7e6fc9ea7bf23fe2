/*
policy.go - Table-driven per-category rules

PURPOSE:
  Consolidates every category-dependent branch in one table. The original
  behavior scattered "which bucket, how much notice, when is balance
  debited" across independent pieces of logic; here a category maps to one
  CategoryPolicy and the rest of the core is category-agnostic.

  Adding a leave category means adding one table row, nothing else.

DEBIT TIMING:
  DebitOnSubmit:  Reservation model. Balance is debited the moment the
                  request is filed, and credited back on reject/cancel.
  DebitOnApprove: Deferred. Used only by compensatory leave, whose bucket
                  is also credited automatically when overtime is logged;
                  debiting at approval keeps the running credit usable
                  while a request is in flight.
  DebitNever:     The category is not balance-bearing.

SEE ALSO:
  - service.go: The only consumer of the table
*/
package leave

// DebitTiming says when a category's chargeable days hit the balance.
type DebitTiming string

const (
	DebitOnSubmit  DebitTiming = "on-submit"
	DebitOnApprove DebitTiming = "on-approve"
	DebitNever     DebitTiming = "never"
)

// CategoryPolicy is the complete per-category ruleset.
type CategoryPolicy struct {
	// Bucket the category draws from. BucketNone means no balance check
	// and no debit, ever.
	Bucket Bucket

	// NoticeDays is the minimum lead time between today and the request's
	// start date. Zero means unconstrained. Waived when a privileged actor
	// files on behalf of another user.
	NoticeDays int

	// Debit says when the chargeable days are taken from the bucket.
	Debit DebitTiming

	// AllowsDocument permits a supporting document on the request.
	AllowsDocument bool
}

var categoryPolicies = map[Category]CategoryPolicy{
	CategoryAnnual:       {Bucket: BucketGeneral, NoticeDays: 7, Debit: DebitOnSubmit},
	CategoryPersonal:     {Bucket: BucketGeneral, NoticeDays: 3, Debit: DebitOnSubmit},
	CategorySick:         {Bucket: BucketNone, Debit: DebitNever, AllowsDocument: true},
	CategoryEmergency:    {Bucket: BucketNone, Debit: DebitNever},
	CategoryMaternity:    {Bucket: BucketGeneral, Debit: DebitOnSubmit},
	CategoryPaternity:    {Bucket: BucketGeneral, Debit: DebitOnSubmit},
	CategoryWorkFromHome: {Bucket: BucketNone, Debit: DebitNever},
	CategoryCompensatory: {Bucket: BucketCompensatory, Debit: DebitOnApprove},
}

// PolicyFor returns the ruleset for a category. The zero policy (no bucket,
// no notice, never debited) is returned for unknown categories; callers are
// expected to have validated the category first.
func PolicyFor(c Category) CategoryPolicy {
	return categoryPolicies[c]
}

// DefaultOpeningBalances are the balances seeded when a user is created.
func DefaultOpeningBalances() map[Bucket]Days {
	return map[Bucket]Days{
		BucketGeneral:      NewDays(20),
		BucketCompensatory: ZeroDays(),
	}
}
