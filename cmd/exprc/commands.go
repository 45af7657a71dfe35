// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/stacklok/toolhive-expression/template"
)

// ErrCheckFailed is returned by check when any file has compile errors.
var ErrCheckFailed = errors.New("expression check failed")

// CheckCmd compiles every embedded expression of template files.
type CheckCmd struct {
	Files []string `arg:"" help:"Template files to check" type:"existingfile"`
	Raw   bool     `help:"Treat each file as a single expression instead of a template"`
}

// Run executes the check command
func (cmd *CheckCmd) Run(ctx *Context) error {
	red := color.New(color.FgRed)
	failed := 0
	for _, file := range cmd.Files {
		data, err := os.ReadFile(file) // #nosec G304 - path is provided by the user
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		cfg := ctx.Config.Clone().WithName(file)

		if cmd.Raw {
			_, err = ctx.Compiler.Compile(string(data), cfg)
		} else {
			_, err = template.Parse(ctx.Compiler, string(data), cfg)
		}
		if err == nil {
			continue
		}

		errs := template.CompileErrors(err)
		if len(errs) == 0 {
			return err
		}
		for _, ce := range errs {
			failed++
			red.Fprintln(ctx.Stderr, ce.Error())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d error(s)", ErrCheckFailed, failed)
	}
	color.New(color.FgGreen).Fprintf(ctx.Stdout, "%d file(s) OK\n", len(cmd.Files))
	return nil
}

// EvalCmd evaluates one expression.
type EvalCmd struct {
	Expr string            `arg:"" help:"Expression to evaluate"`
	Var  map[string]string `help:"Variable as name=value; values are YAML scalars" short:"v"`
}

// Run executes the eval command
func (cmd *EvalCmd) Run(ctx *Context) error {
	vars, err := parseVars(cmd.Var)
	if err != nil {
		return err
	}
	compiled, err := ctx.Compiler.Compile(cmd.Expr, ctx.Config)
	if err != nil {
		return err
	}
	result, err := compiled.Eval(vars)
	if err != nil {
		return err
	}
	ctx.Logger.Debug("expression evaluated", "kind", result.Kind().String())
	fmt.Fprintln(ctx.Stdout, result.String())
	return nil
}

// RenderCmd renders a template file to stdout.
type RenderCmd struct {
	File string `arg:"" help:"Template file to render" type:"existingfile"`
	Vars string `help:"YAML file with template variables" type:"existingfile"`
}

// Run executes the render command
func (cmd *RenderCmd) Run(ctx *Context) error {
	vars, err := loadVars(cmd.Vars)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.File, err)
	}
	tmpl, err := template.Parse(ctx.Compiler, string(data), ctx.Config.Clone().WithName(cmd.File))
	if err != nil {
		return err
	}
	out, err := tmpl.Render(vars)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(ctx.Stdout, out)
	return err
}
