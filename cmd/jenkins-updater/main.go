package main

import "github.com/adichiru/jenkins-auto-update/cmd/jenkins-updater/cmd"

func main() {
	cmd.Execute()
}
