// Package sender holds the outbound channel transports. Every sender degrades
// to a dev-mode fallback when its provider is not configured: the would-be
// send is logged and a synthetic dev-<nanos> id is returned, so the dispatch
// service needs no channel-specific fallback logic. Senders only error on
// genuinely invalid input or real transport failures.
package sender

import (
	"fmt"
	"time"
)

func devMessageID() string {
	return fmt.Sprintf("dev-%d", time.Now().UnixNano())
}
