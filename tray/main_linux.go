package tray

func runOnMain(start func()) { start() }
