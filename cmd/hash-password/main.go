package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"vaultmail/backend/internal/auth"
)

// main 生成管理密码的 bcrypt 哈希，输出可直接填入 VAULTMAIL_ADMIN_PASSWORD_HASH。
func main() {
	password := flag.String("password", "", "管理密码（为空时从标准输入读取一行）")
	flag.Parse()

	if *password == "" {
		fmt.Fprint(os.Stderr, "请输入管理密码: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "错误: 无法读取密码: %v\n", err)
			os.Exit(1)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	if *password == "" {
		fmt.Fprintln(os.Stderr, "错误: 密码不能为空")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法生成哈希: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
