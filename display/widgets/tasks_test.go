package widgets

import (
	"reflect"
	"testing"

	"gitlab.com/tinyland/lab/net-meter/collectors/procs"
)

func TestRenderTasks(t *testing.T) {
	tasks := []procs.Task{
		{PID: 200, Name: "chrome", Permille: 250},
		{PID: 1, Name: "system_server", Permille: 7},
	}

	got := RenderTasks(tasks, 0)
	want := []string{" 25.0%  chrome", "  0.7%  system_server"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RenderTasks = %q, want %q", got, want)
	}

	if cut := RenderTasks(tasks, 12); len([]rune(cut[1])) > 12 {
		t.Errorf("line not cut to width: %q", cut[1])
	}
	if empty := RenderTasks(nil, 40); len(empty) != 0 {
		t.Errorf("RenderTasks(nil) = %q", empty)
	}
}
