// Package resilience retries operations with exponential backoff.
//
//	db, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*gorm.DB, error) {
//	    return gorm.Open(dialector, cfg)
//	})
//
// RetryIf limits which errors are retried; OnRetry observes each failed
// attempt before the backoff sleep.
package resilience
