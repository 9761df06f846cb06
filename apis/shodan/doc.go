// Package shodan is a client of the Shodan REST API built on package api.
//
// Every request is throttled to one per second across all clients of the
// class. Calling Info applies the account's plan: private plans unlock
// private calls and lift the throttle.
//
//	c, err := shodan.New(shodan.Config{APIKey: key})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	ips, err := c.DNSResolve(ctx, "example.com", "example.org")
package shodan
