package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ximiwu/Exocortex/internal/blockfile"
)

func main() {
	pdfPath := flag.String("file", "", "Path to PDF file")
	flag.Parse()

	if *pdfPath == "" {
		fmt.Println("Please provide a PDF file path using -file flag")
		os.Exit(1)
	}

	fmt.Printf("Analyzing PDF: %s\n", *pdfPath)

	// Get page dimensions
	dims, err := api.PageDimsFile(*pdfPath)
	if err != nil {
		fmt.Printf("Error getting page dimensions: %v\n", err)
		os.Exit(1)
	}

	blocksPerPage := make(map[int]int)
	sidecar := blockfile.SidecarPath(*pdfPath)
	if f, err := blockfile.Load(sidecar); err == nil {
		for _, rec := range f.Blocks {
			blocksPerPage[rec.Page]++
		}
		fmt.Printf("Block file: %s (%d blocks)\n", sidecar, len(f.Blocks))
	} else {
		fmt.Printf("Block file: none\n")
	}

	// Process each page's dimensions
	for i, dim := range dims {
		fmt.Printf("\nPage %d:\n", i+1)
		fmt.Printf("Dimensions (Width x Height): %.3f x %.3f points\n", dim.Width, dim.Height)
		if n := blocksPerPage[i]; n > 0 {
			fmt.Printf("Blocks: %d\n", n)
		}
	}
}
