// Command orderevents runs the order service and its event pipeline.
//
// Usage:
//
//	orderevents serve
//	orderevents migrate
//	orderevents publish --topic order-created --payload "Order 42 for user 7 created"
//	orderevents token --user 1 --role ADMIN
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
