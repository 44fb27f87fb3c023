// Package main provides the entry point for the ragcrawl CLI.
//
// ragcrawl crawls a website within its own domain, honoring robots.txt,
// and stores the raw pages for a retrieval-augmented generation pipeline.
//
// Usage:
//
//	ragcrawl crawl https://docs.example.com
//	ragcrawl serve --listen 127.0.0.1:8000
//	ragcrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
