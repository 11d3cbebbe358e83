package main

import "github.com/Mohsinsiddi/nftsale/cmd"

func main() {
	cmd.Execute()
}
