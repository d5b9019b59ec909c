package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	cli "github.com/spf13/pflag"
)

func main() {
	addr := cli.StringP("url", "u", "http://localhost:5000/", "Daemon URL")
	cli.Parse()

	client := &http.Client{Timeout: 5 * time.Minute}

	resp, err := client.Get(*addr)
	if err != nil {
		fmt.Println("vqa-daemon not running:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		fmt.Println("read response:", err)
		os.Exit(1)
	}
	fmt.Println()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
