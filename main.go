package main

import "github.com/Mymoliy/echotrace/cmd/echotrace"

func main() {
	echotrace.Execute()
}
