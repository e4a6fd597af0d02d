package main

//go:generate swag init -g cmd/bot/main.go -o docs

// @title           Scalp Bot API
// @version         0.1.0
// @description     Control surface for the intraday scalping engine.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
