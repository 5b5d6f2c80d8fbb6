package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gorilla/mux"
)

var addr string

var rootCmd = &cobra.Command{
	Use:   "nexrad-serve",
	Short: "Serve decoded NEXRAD Level-II volume metadata over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(addr)
	},
}

func main() {
	rootCmd.Flags().StringVar(&addr, "addr", "0.0.0.0:8081", "listen address")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(addr string) error {
	r := mux.NewRouter()
	r.HandleFunc("/l2/{fn}.json", archiveMetaHandler)
	r.HandleFunc("/l2/realtime/{site}/{volume}.json", realtimeMetaHandler)

	srv := &http.Server{
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Handler:      r,
	}

	logrus.Infof("listening on %s", addr)
	return srv.ListenAndServe()
}
