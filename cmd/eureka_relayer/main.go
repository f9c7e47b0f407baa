package main

import (
	"log"

	"github.com/interchainlabs/eureka-relayer/cmd/eureka_relayer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
