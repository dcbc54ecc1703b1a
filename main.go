package main

import "github.com/anurag-haridas/visual-impaired/cmd"

func main() {
	cmd.Execute()
}
