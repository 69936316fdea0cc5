// Package repl runs the interactive conversation loop of the command-line
// agents: read a line, hand it to the agent, print the final answer.
package repl
