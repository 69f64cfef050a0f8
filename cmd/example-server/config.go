package main

import (
	"os"
	"strconv"
)

type config struct {
	listenAddr   string
	internalAddr string
	keyHeader    string
	trustXFF     bool
}

// O servidor de exemplo recebe clientes direto, então por padrão a chave é o
// IP da conexão. Header de chave e X-Forwarded-For só com proxy confiável na frente.
func readConfig() config {
	return config{
		listenAddr:   getenvDefault("LISTEN_ADDR", ":8081"),
		internalAddr: getenvDefault("INTERNAL_ADDR", "127.0.0.1:8082"),
		keyHeader:    os.Getenv("RATE_KEY_HEADER"),
		trustXFF:     getenvBoolDefault("TRUST_XFF", false),
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
