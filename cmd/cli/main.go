package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

func main() {
	os.Exit(run())
}

func run() int {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:5000"
	}

	raw := strings.Join(os.Args[1:], " ")
	if raw == "" {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter a site to check (e.g., example.com): ")
		raw, _ = reader.ReadString('\n')
	}
	target, err := urlnorm.Format(raw)
	if err != nil {
		fmt.Println("Invalid URL.")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(api, "/")+"/check?url="+url.QueryEscape(target), nil)
	if err != nil {
		fmt.Println("Bad API_BASE:", err)
		return 2
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		fmt.Println("API returned status:", resp.Status)
		return 1
	}
	switch strings.TrimSpace(string(body)) {
	case "Up":
		fmt.Printf("%s is up.\n", target)
	default:
		fmt.Printf("%s looks down from here.\n", target)
	}
	return 0
}
