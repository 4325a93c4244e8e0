package main

import (
	"bufio"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/stelsign/stelsignd"
	"github.com/stelsign/stelsignd/keys"
)

var (
	addr     = flag.String("l", "localhost:7391", "Listen address")
	dataDir  = flag.String("d", ".", "Data directory")
	seedFile = flag.String("s", "seed.txt", "Mnemonic seed file")
)

func main() {
	flag.Parse()

	backend := btclog.NewBackend(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   filepath.Join(*dataDir, "stelsignd.log"),
		MaxSize:    10,
		MaxBackups: 3,
	}))
	log := backend.Logger("SIGN")

	words, err := os.ReadFile(*seedFile)
	if err != nil {
		log.Errorf("Unable to read seed: %v", err)
		return
	}
	ring := keys.NewKeyRing(&keys.MnemonicSeed{
		Mnemonic:   strings.TrimSpace(string(words)),
		Passphrase: os.Getenv("STELSIGND_PASSPHRASE"),
	})

	server := &stelsignd.Server{
		Addr:   *addr,
		Keys:   ring,
		Dialog: &consoleDialog{in: bufio.NewReader(os.Stdin)},
		Log:    backend.Logger("RPCS"),
	}
	if err := server.Start(); err != nil {
		log.Errorf("Server error: %v", err)
	}
}
