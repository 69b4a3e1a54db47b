//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default 默认任务：显示帮助信息
func Default() {
	fmt.Println("StockPrep 构建系统")
	fmt.Println("=================")
	fmt.Println("可用任务:")
	fmt.Println("  mage build       - 构建所有二进制文件")
	fmt.Println("  mage test        - 运行所有测试")
	fmt.Println("  mage benchmark   - 运行性能基准测试")
	fmt.Println("  mage docker:env  - 启动基础环境 (Redis + InfluxDB)")
	fmt.Println("  mage docker:down - 停止所有服务")
	fmt.Println("  mage clean       - 清理构建产物")
	fmt.Println("  mage lint        - 运行代码检查")
	fmt.Println("  mage coverage    - 生成测试覆盖率报告")
}

// Build 构建所有二进制文件
func Build() error {
	mg.Deps(Clean)

	targets := []struct {
		name string
		path string
	}{
		{"stockprep", "./cmd/stockprep"},
		{"api_server", "./cmd/api_server"},
		{"prewarm_scheduler", "./cmd/prewarm_scheduler"},
	}

	fmt.Println("🚀 开始构建 StockPrep 组件...")

	for _, target := range targets {
		fmt.Printf("📦 构建 %s...\n", target.name)
		output := filepath.Join("./dist", target.name)
		if runtime.GOOS == "windows" {
			output += ".exe"
		}

		cmd := exec.Command("go", "build", "-o", output, target.path)
		cmd.Env = os.Environ()
		cmd.Env = append(cmd.Env, "CGO_ENABLED=0")

		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("构建 %s 失败: %v\n输出: %s", target.name, err, string(out))
		}
	}

	fmt.Println("🎉 所有组件构建完成!")
	return nil
}

// Test 运行所有测试
func Test() error {
	fmt.Println("🧪 运行测试...")

	cmd := exec.Command("go", "test", "./pkg/...", "-v", "-timeout=5m")
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "[no test files]") &&
			!strings.Contains(string(output), "FAIL") &&
			!strings.Contains(string(output), "build failed") {
			fmt.Println("✅ 测试通过! (部分包没有测试文件)")
			return nil
		}
		fmt.Printf("测试失败输出:\n%s\n", string(output))
		return fmt.Errorf("测试失败: %v", err)
	}

	fmt.Println("✅ 测试通过!")
	return nil
}

// Benchmark 运行性能基准测试
func Benchmark() error {
	fmt.Println("📊 运行性能基准测试...")
	return sh.RunV("go", "test", "./pkg/...", "-bench=.", "-benchmem", "-run=^$", "-timeout=15m")
}

type Docker mg.Namespace

// Env 启动基础环境服务 (redis, influxdb)
func (Docker) Env() error {
	fmt.Println("🚀 启动基础环境服务 (redis, influxdb)...")
	return sh.RunV("docker-compose", "-f", "docker-compose.dev.yml", "-p", "stockprep-dev", "up", "-d", "redis", "influxdb")
}

// Down 停止所有开发环境服务
func (Docker) Down() error {
	fmt.Println("🛑 停止所有开发环境服务...")
	return sh.RunV("docker-compose", "-f", "docker-compose.dev.yml", "-p", "stockprep-dev", "down")
}

// Status 查看所有服务的当前状态
func (Docker) Status() error {
	return sh.RunV("docker-compose", "-f", "docker-compose.dev.yml", "-p", "stockprep-dev", "ps")
}

// Logs 查看所有服务的日志
func (Docker) Logs() error {
	return sh.RunV("docker-compose", "-f", "docker-compose.dev.yml", "-p", "stockprep-dev", "logs", "-f")
}

// Clean 清理构建产物
func Clean() error {
	fmt.Println("🧹 清理构建产物...")

	if err := os.RemoveAll("./dist"); err != nil {
		return err
	}
	return os.RemoveAll("./coverage")
}

// Lint 运行代码检查
func Lint() error {
	fmt.Println("🔍 运行代码检查...")

	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("gofmt", "-l", "-d", ".")
}

// Coverage 生成测试覆盖率报告
func Coverage() error {
	fmt.Println("📊 生成覆盖率报告...")

	if err := os.MkdirAll("./coverage", 0755); err != nil {
		return err
	}

	if err := sh.RunV("go", "test", "./pkg/...",
		"-coverprofile=./coverage/coverage.out", "-covermode=atomic"); err != nil {
		return err
	}

	return sh.RunV("go", "tool", "cover",
		"-html=./coverage/coverage.out", "-o", "./coverage/coverage.html")
}
