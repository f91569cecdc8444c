package main

import (
	"log"

	"github.com/bellodavid/external-payment/config"
)

func main() {

	server, err := InitializeCheckoutService()
	if err != nil {
		log.Fatal(err)
		return
	}

	if err = server.Run(config.ServerStartPort); err != nil {
		log.Fatal(err.Error())
	}

}
