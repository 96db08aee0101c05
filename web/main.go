package main

import (
	"flag"
	"log"
	"os"

	"github.com/abdo544445/parallel-raytracer/web/server"
)

func main() {
	defaults := server.DefaultConfig()

	// Parse command line flags
	port := flag.Int("port", defaults.Port, "Port to serve on")
	scenesDir := flag.String("scenes", defaults.ScenesDir, "Directory of .json scene descriptions")
	staticDir := flag.String("static", defaults.StaticDir, "Directory of static files served at /")
	recordDir := flag.String("record", "", "Record every render into a bundle under this directory")
	flag.Parse()

	// Create and start web server
	webServer := server.NewServer(server.Config{
		Port:      *port,
		ScenesDir: *scenesDir,
		StaticDir: *staticDir,
		RecordDir: *recordDir,
	})

	log.Printf("Parallel Raytracer Web Server")
	log.Printf("Connect a WebSocket client to ws://localhost:%d/api/render to start rendering", *port)
	if *recordDir != "" {
		log.Printf("Recording renders to %s", *recordDir)
	}

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
