package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/mastercactapus/motioncore/config"
	"github.com/mastercactapus/motioncore/homing"
	"github.com/mastercactapus/motioncore/machine"
)

// logDriver stands in for the stepper enable lines.
type logDriver struct{}

func (logDriver) SetEnabled(ch homing.Channel, on bool) error {
	log.Printf("driver %s enabled=%t", ch, on)
	return nil
}

func main() {
	log.SetFlags(log.Lshortfile)

	cfgPath := flag.String("config", "", "Machine config file (JSON). Uses a 200mm cartesian machine if empty.")
	addr := flag.String("addr", ":9092", "Address to bind the motion server to.")
	dir := flag.String("dir", "./data", "Data directory for persisted settings.")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("ERROR: %+v", err)
		}
	}

	m, err := machine.New(*cfg, logDriver{})
	if err != nil {
		log.Fatalf("ERROR: %+v", err)
	}

	a := newAPI(m, *dir)
	if err := a.loadSettings(); err != nil && !os.IsNotExist(err) {
		log.Printf("ERROR: load settings: %+v", err)
	}

	log.Println("Listening:", *addr)
	log.Fatal(http.ListenAndServe(*addr, a))
}
