package app

import (
	"time"
)

func DoEvery(d time.Duration, f func(time.Time)) { //Simple Task Repeater
	for x := range time.Tick(d) {
		f(x)
	}
}

func CurrentMessageTime() string {
	t := time.Now()
	return t.Format("02.01.2006 15:04")
}
