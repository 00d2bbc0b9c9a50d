// secworker drains the security.events queue and appends each event to
// logs/security.log. Run alongside the API server wherever a broker is
// deployed; the consumer reconnects on broker restarts.
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/harvestlane/shop-api/internal/queue"
)

func main() {
	_ = godotenv.Load()

	log.Println("security event worker starting")
	if err := queue.StartSecurityConsumer(); err != nil {
		log.Fatal(err)
	}
}
