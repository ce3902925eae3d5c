package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/yzeng1018/stock-monitor/internal/cli"
)

func main() {
	cli.Execute()
}
