package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/recordkeeper/internal/client/app"
	"github.com/dmitrijs2005/recordkeeper/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg, os.Stdin, os.Stdout)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	a.Run(ctx)

}
