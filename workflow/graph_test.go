package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	visited []string
	counter int
}

func recordNode(name string) NodeFunc[*testState] {
	return func(_ context.Context, s *testState) (*testState, error) {
		s.visited = append(s.visited, name)
		return s, nil
	}
}

func linearDefinition(t *testing.T) *Definition[*testState] {
	t.Helper()
	def, err := NewBuilder[*testState]("linear").
		AddNode("first", recordNode("first")).
		AddNode("second", recordNode("second")).
		AddNode("third", recordNode("third")).
		AddEdge("first", "second").
		AddEdge("second", "third").
		AddEdge("third", End).
		SetEntryPoint("first").
		Compile()
	require.NoError(t, err)
	return def
}

func TestDefinition_Invoke_Linear(t *testing.T) {
	def := linearDefinition(t)

	out, err := def.Invoke(context.Background(), &testState{})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, out.visited)
}

func TestDefinition_Invoke_Deterministic(t *testing.T) {
	def := linearDefinition(t)

	first, err := def.Invoke(context.Background(), &testState{})
	require.NoError(t, err)
	second, err := def.Invoke(context.Background(), &testState{})
	require.NoError(t, err)

	assert.Equal(t, first.visited, second.visited)
}

func TestDefinition_Invoke_ConditionalRouting(t *testing.T) {
	def, err := NewBuilder[*testState]("branching").
		AddNode("decide", recordNode("decide")).
		AddNode("left", recordNode("left")).
		AddNode("right", recordNode("right")).
		AddConditionalEdge("decide", func(s *testState) string {
			if s.counter > 0 {
				return "right"
			}
			return "left"
		}).
		AddEdge("left", End).
		AddEdge("right", End).
		SetEntryPoint("decide").
		Compile()
	require.NoError(t, err)

	out, err := def.Invoke(context.Background(), &testState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"decide", "left"}, out.visited)

	out, err = def.Invoke(context.Background(), &testState{counter: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"decide", "right"}, out.visited)
}

func TestDefinition_Invoke_CycleTerminates(t *testing.T) {
	def, err := NewBuilder[*testState]("cyclic").
		AddNode("work", func(_ context.Context, s *testState) (*testState, error) {
			s.counter++
			s.visited = append(s.visited, "work")
			return s, nil
		}).
		AddConditionalEdge("work", func(s *testState) string {
			if s.counter >= 3 {
				return End
			}
			return "work"
		}).
		SetEntryPoint("work").
		Compile()
	require.NoError(t, err)

	out, err := def.Invoke(context.Background(), &testState{})

	require.NoError(t, err)
	assert.Equal(t, 3, out.counter)
}

func TestDefinition_Invoke_IterationLimit(t *testing.T) {
	def, err := NewBuilder[*testState]("runaway").
		AddNode("spin", recordNode("spin")).
		AddConditionalEdge("spin", func(*testState) string { return "spin" }).
		SetEntryPoint("spin").
		WithMaxIterations(5).
		Compile()
	require.NoError(t, err)

	out, err := def.Invoke(context.Background(), &testState{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIterationLimit)
	assert.Len(t, out.visited, 5)
}

func TestDefinition_Invoke_Override(t *testing.T) {
	def := linearDefinition(t)

	out, err := def.Invoke(context.Background(), &testState{}, WithStartAt("second"))

	require.NoError(t, err)
	// The override replaces exactly one transition; default routing resumes after.
	assert.Equal(t, []string{"second", "third"}, out.visited)
}

func TestDefinition_Invoke_UnknownOverride(t *testing.T) {
	def := linearDefinition(t)

	_, err := def.Invoke(context.Background(), &testState{}, WithStartAt("nope"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "override step")
}

func TestDefinition_Invoke_StepErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("external tool unavailable")
	def, err := NewBuilder[*testState]("failing").
		AddNode("ok", recordNode("ok")).
		AddNode("fails", func(_ context.Context, s *testState) (*testState, error) {
			return s, boom
		}).
		AddEdge("ok", "fails").
		AddEdge("fails", End).
		SetEntryPoint("ok").
		Compile()
	require.NoError(t, err)

	_, err = def.Invoke(context.Background(), &testState{})

	require.Error(t, err)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "fails", stepErr.Step)
	assert.ErrorIs(t, err, boom)
}

func TestDefinition_Invoke_ContextCancellation(t *testing.T) {
	def := linearDefinition(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := def.Invoke(ctx, &testState{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefinition_Invoke_StepObserver(t *testing.T) {
	var observed []string
	def, err := NewBuilder[*testState]("observed").
		AddNode("only", recordNode("only")).
		AddEdge("only", End).
		SetEntryPoint("only").
		WithStepObserver(func(step string, _ time.Duration, err error) {
			require.NoError(t, err)
			observed = append(observed, step)
		}).
		Compile()
	require.NoError(t, err)

	_, err = def.Invoke(context.Background(), &testState{})

	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, observed)
}

func TestBuilder_Compile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder[*testState]
		wantErr string
	}{
		{
			name:    "missing entry point",
			builder: NewBuilder[*testState]("w").AddNode("a", recordNode("a")).AddEdge("a", End),
			wantErr: "no entry point",
		},
		{
			name:    "unknown entry point",
			builder: NewBuilder[*testState]("w").AddNode("a", recordNode("a")).AddEdge("a", End).SetEntryPoint("b"),
			wantErr: "not a registered node",
		},
		{
			name: "edge to unknown node",
			builder: NewBuilder[*testState]("w").
				AddNode("a", recordNode("a")).AddEdge("a", "ghost").SetEntryPoint("a"),
			wantErr: "unknown node",
		},
		{
			name: "node without outgoing edge",
			builder: NewBuilder[*testState]("w").
				AddNode("a", recordNode("a")).SetEntryPoint("a"),
			wantErr: "no outgoing edge",
		},
		{
			name: "static and conditional edge on same node",
			builder: NewBuilder[*testState]("w").
				AddNode("a", recordNode("a")).
				AddEdge("a", End).
				AddConditionalEdge("a", func(*testState) string { return End }).
				SetEntryPoint("a"),
			wantErr: "both a static and a conditional edge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Compile()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustCompile_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(NewBuilder[*testState]("bad"))
	})
}
