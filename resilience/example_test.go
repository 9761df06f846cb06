package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/apicall/resilience"
)

func ExampleWindow_Acquire() {
	w := resilience.NewWindow()
	cfg := resilience.WindowConfig{Period: time.Minute, Requests: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := w.Acquire(ctx, cfg); err != nil {
			fmt.Println("error:", err)
			return
		}
	}
	fmt.Println("admitted:", w.Len(time.Minute))
	// Output:
	// admitted: 2
}

func ExampleTicket_Release() {
	w := resilience.NewWindow()
	cfg := resilience.WindowConfig{Period: time.Minute, Requests: 1}

	ticket, _ := w.Acquire(context.Background(), cfg)
	ticket.Release()
	fmt.Println("admitted:", w.Len(time.Minute))
	// Output:
	// admitted: 0
}

func ExampleRetry_Execute() {
	errPending := errors.New("pending")
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 3,
		RetryIf:     func(err error) bool { return errors.Is(err, errPending) },
	})

	err := r.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		if attempt < 2 {
			return errPending
		}
		fmt.Println("resolved on attempt", attempt)
		return nil
	})
	fmt.Println("error:", err)
	// Output:
	// resolved on attempt 2
	// error: <nil>
}
